package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (c *maincmd) stat(ctx context.Context, check bool, _ []string) error {
	st, err := c.files.Stat(ctx)
	if err != nil {
		return errors.Wrap(err, "getting store stats")
	}

	fmt.Printf("index:  %s (%d bytes)\n", c.files.IndexPath(), st.IndexSize)
	fmt.Printf("data:   %s (%d bytes)\n", c.files.DataPath(), st.DataSize)
	fmt.Printf("blobs:  %d\n", st.Count)
	if st.Tail > 0 {
		fmt.Printf("tail:   %d unreferenced bytes\n", st.Tail)
	}

	if check {
		if err = c.files.Check(ctx); err != nil {
			return err
		}
		fmt.Println("check:  ok")
	}
	return nil
}
