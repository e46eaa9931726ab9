package chat

import (
	domain "github.com/example/chat-relay/domain/chat"
)

// Registry maps live connection ids to announced users.
// It is not safe for concurrent use; the Engine serializes access.
type Registry struct {
	users map[string]domain.User
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]domain.User),
	}
}

// Register creates or overwrites the user for connID.
func (r *Registry) Register(connID, name string) domain.User {
	if _, exists := r.users[connID]; !exists {
		r.order = append(r.order, connID)
	}
	user := domain.User{ID: connID, Name: name}
	r.users[connID] = user
	return user
}

// Unregister removes connID and returns the prior entry, if any.
func (r *Registry) Unregister(connID string) (domain.User, bool) {
	user, exists := r.users[connID]
	if !exists {
		return domain.User{}, false
	}
	delete(r.users, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return user, true
}

// Get returns the user registered for connID.
func (r *Registry) Get(connID string) (domain.User, bool) {
	user, exists := r.users[connID]
	return user, exists
}

// List returns a snapshot of all users in announce order.
func (r *Registry) List() []domain.User {
	result := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.users[id])
	}
	return result
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	return len(r.users)
}
