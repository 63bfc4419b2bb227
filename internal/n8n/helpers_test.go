package n8n_test

import "context"

func ctx() context.Context {
	return context.Background()
}
