package model

import (
	"context"
	"fmt"

	"github.com/meshwork-app/meshwork-api/pkg/password"
)

// Changes is a partial set of attribute writes keyed by attribute name.
type Changes map[string]interface{}

// HashFunc derives a password hash; satisfied by (*password.Hasher).Hash.
type HashFunc func(ctx context.Context, plaintext string) (string, error)

// DeriveOnWrite transforms a change set into the effective column writes
// applied by the store. It is the single pre-persistence hook:
//
//   - a virtual "password" attribute is validated against the policy and
//     replaced by a freshly derived "password_hash"
//   - a change of "email" resets "is_confirmed" to false, since the address
//     is no longer known to be real
//
// previous may be nil on creation. The input map is not mutated.
func DeriveOnWrite(ctx context.Context, previous *User, changes Changes, hash HashFunc) (Changes, error) {
	effective := make(Changes, len(changes)+1)
	for k, v := range changes {
		effective[k] = v
	}

	if raw, ok := effective["password"]; ok {
		plaintext, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("model: password must be a string")
		}
		if err := password.Validate(plaintext); err != nil {
			return nil, &ValidationError{Attr: "password", Msg: err.Error()}
		}
		derived, err := hash(ctx, plaintext)
		if err != nil {
			return nil, fmt.Errorf("model: deriving password hash: %w", err)
		}
		delete(effective, "password")
		effective["password_hash"] = derived
	}

	if raw, ok := effective["email"]; ok {
		email, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("model: email must be a string")
		}
		if previous == nil || email != previous.Email {
			effective["is_confirmed"] = false
		}
	}

	return effective, nil
}
