package compute

import "context"

// Serial runs every instance on the calling goroutine.
type Serial struct{}

func NewSerial() *Serial { return &Serial{} }

func (*Serial) Name() string { return "serial" }
func (*Serial) Workers() int { return 1 }

// Run stops early with the context's error if ctx is canceled between
// instances.
func (*Serial) Run(ctx context.Context, n int, fn func(i int)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(i)
	}
	return nil
}
