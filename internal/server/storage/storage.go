// Package storage persists uploaded files. Backends are selected by the
// upload_backend setting: the local filesystem or an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Storage saves the content of r under name, replacing any previous object
// with the same name, and returns the location it was written to.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid object name %q", common.ErrorValidation, name)
	}
	return nil
}
