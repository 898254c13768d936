package basic

// TodoStore holds the todo items of a single session. Each Tool instance owns
// its own store; there is no shared process-wide list.
type TodoStore struct {
	items []string
}

// NewTodoStore creates an empty todo store
func NewTodoStore() *TodoStore {
	return &TodoStore{}
}

// Add appends a task to the list
func (s *TodoStore) Add(task string) {
	s.items = append(s.items, task)
}

// List returns a copy of all tasks in insertion order
func (s *TodoStore) List() []string {
	items := make([]string, len(s.items))
	copy(items, s.items)
	return items
}

// Len returns the number of stored tasks
func (s *TodoStore) Len() int {
	return len(s.items)
}
