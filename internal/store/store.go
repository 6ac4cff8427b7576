package store

import "database/sql"

// Store provides access to all storage repositories.
type Store struct {
	db    *sql.DB
	runs  *RunStore
	tasks *TaskStore
}

func NewStore(db *sql.DB) *Store {
	q := &loggingDB{db: db}
	return &Store{
		db:    db,
		runs:  NewRunStore(q),
		tasks: NewTaskStore(q),
	}
}

func (s *Store) Runs() *RunStore {
	return s.runs
}

func (s *Store) Tasks() *TaskStore {
	return s.tasks
}

func (s *Store) Close() error {
	return s.db.Close()
}
