// Package store holds a registry of blob-store constructors,
// so that a store can be built from a configuration map
// whose "type" entry names the implementation.
package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/illust"
)

// Factory builds a store from its configuration.
type Factory func(context.Context, map[string]interface{}) (illust.Store, error)

var registry = make(map[string]Factory)

// Register makes f available to Create under the name key.
// It is normally called from the init function of a store package.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create builds the store registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (illust.Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// CreateNested builds the store described by conf[param],
// which must itself be a configuration map with a "type" entry.
// Wrapping stores (cache, logging) use it for the store they wrap.
func CreateNested(ctx context.Context, conf map[string]interface{}, param string) (illust.Store, error) {
	nested, ok := conf[param].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf(`missing "%s" parameter`, param)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, fmt.Errorf(`"%s" parameter missing "type"`, param)
	}
	s, err := Create(ctx, nestedType, nested)
	return s, errors.Wrapf(err, "creating nested %s store", nestedType)
}
