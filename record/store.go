package record

import "sort"

// Store is a read-only handle over a loaded set of demand records. A store is built once
// and never mutated afterwards; sessions that need their own copy call Clone.
type Store struct {
	records    []DemandRecord
	warehouses []string
	products   map[string][]string
}

// NewStore indexes the consolidated records. The input slice is copied.
func NewStore(records []DemandRecord) *Store {
	recs := make([]DemandRecord, len(records))
	copy(recs, records)

	productSet := make(map[string]map[string]struct{})
	for _, rec := range recs {
		if _, exists := productSet[rec.WarehouseID]; !exists {
			productSet[rec.WarehouseID] = make(map[string]struct{})
		}
		productSet[rec.WarehouseID][rec.ProductCode] = struct{}{}
	}

	warehouses := make([]string, 0, len(productSet))
	products := make(map[string][]string, len(productSet))
	for wh, set := range productSet {
		warehouses = append(warehouses, wh)
		codes := make([]string, 0, len(set))
		for code := range set {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		products[wh] = codes
	}
	sort.Strings(warehouses)

	return &Store{
		records:    recs,
		warehouses: warehouses,
		products:   products,
	}
}

// OpenStore loads a csv or xlsx file into a new Store
func OpenStore(path string) (*Store, error) {
	records, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStore(records), nil
}

// Records returns a copy of every record in the store
func (s *Store) Records() []DemandRecord {
	if s == nil {
		return nil
	}
	out := make([]DemandRecord, len(s.records))
	copy(out, s.records)
	return out
}

// View returns the underlying records without copying. Callers must not modify the slice.
func (s *Store) View() []DemandRecord {
	if s == nil {
		return nil
	}
	return s.records
}

// Len returns the number of consolidated records
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Warehouses returns the sorted distinct warehouse identifiers
func (s *Store) Warehouses() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.warehouses))
	copy(out, s.warehouses)
	return out
}

// Products returns the sorted distinct product codes seen for a warehouse
func (s *Store) Products(warehouse string) []string {
	if s == nil {
		return nil
	}
	codes := s.products[warehouse]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// HasProduct reports whether the warehouse carries the product
func (s *Store) HasProduct(warehouse, product string) bool {
	if s == nil {
		return false
	}
	codes := s.products[warehouse]
	i := sort.SearchStrings(codes, product)
	return i < len(codes) && codes[i] == product
}

// KnownProduct reports whether any warehouse carries the product
func (s *Store) KnownProduct(product string) bool {
	if s == nil {
		return false
	}
	for _, codes := range s.products {
		i := sort.SearchStrings(codes, product)
		if i < len(codes) && codes[i] == product {
			return true
		}
	}
	return false
}

// HasWarehouse reports whether any record belongs to the warehouse
func (s *Store) HasWarehouse(warehouse string) bool {
	if s == nil {
		return false
	}
	_, exists := s.products[warehouse]
	return exists
}

// Clone returns an independent deep copy of the store
func (s *Store) Clone() *Store {
	if s == nil {
		return nil
	}
	return NewStore(s.records)
}
