package command

import "context"

//go:generate go run go.uber.org/mock/mockgen -source=command.go -destination=mocks/mock.go
type Client interface {
	// HandleCommand consumes bot updates until ctx is done.
	HandleCommand(ctx context.Context) error
}
