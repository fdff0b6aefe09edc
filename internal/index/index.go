package index

// History defines the conversion history operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type History interface {
	Record(r ConversionRow, body string) error
	Get(id string) (*ConversionRow, error)
	List(limit, offset int) ([]ConversionRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	LatestByChecksum(checksum string) (*ConversionRow, error)
	Close() error
}

// Verify *DB satisfies History at compile time.
var _ History = (*DB)(nil)
