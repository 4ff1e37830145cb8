package wishlist

import "context"

// command is one optimistic operation: a local change, the remote call
// that confirms it, and the inverse applied if that call fails.
type command struct {
	name   string
	apply  func(ids map[int]struct{})
	effect func(ctx context.Context, token string) error
	revert func(ids map[int]struct{})
}

// setMembership sets productID's membership to want. The revert restores
// whatever membership the id had right before apply ran.
func setMembership(name string, productID int, want bool, effect func(context.Context, string) error) command {
	var had bool
	return command{
		name: name,
		apply: func(ids map[int]struct{}) {
			_, had = ids[productID]
			set(ids, productID, want)
		},
		effect: effect,
		revert: func(ids map[int]struct{}) {
			set(ids, productID, had)
		},
	}
}

func set(ids map[int]struct{}, productID int, member bool) {
	if member {
		ids[productID] = struct{}{}
		return
	}
	delete(ids, productID)
}
