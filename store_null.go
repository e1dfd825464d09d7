package cachestorage

import "context"

// nullStore accepts and discards every write. It measures harness overhead
// and, having no estimator, exercises the skipped estimate path.
type nullStore struct{}

func newNullStore() Store { return &nullStore{} }

func (s *nullStore) Driver() Driver { return DriverNull }

func (s *nullStore) Ready(context.Context) error { return nil }

func (s *nullStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *nullStore) Set(context.Context, string, []byte) error { return nil }

func (s *nullStore) Keys(context.Context, string) ([]string, error) { return nil, nil }
