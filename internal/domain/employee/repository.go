package employee

import "context"

type Repository interface {
	// List returns employees newest first together with the total count
	List(ctx context.Context, filter ListFilter) ([]*Employee, int, error)

	// All returns every employee; used to snapshot the directory
	All(ctx context.Context) ([]*Employee, error)

	Get(ctx context.Context, id string) (*Employee, error)
	GetByEmail(ctx context.Context, email string) (*Employee, error)
	Create(ctx context.Context, e *Employee) error
	Update(ctx context.Context, e *Employee) error
	Delete(ctx context.Context, id string) error

	// NextSequence returns the highest existing EMP number plus one
	NextSequence(ctx context.Context) (int, error)
}

type ListFilter struct {
	Department string
	Status     *Status
	Limit      int
	Offset     int
}
