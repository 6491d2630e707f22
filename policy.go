package filedock

import "fmt"

// Authorize decides whether a caller may perform op on a resource owned by
// ownerID. It is a pure function of (role, ownerID == callerID, op): no I/O,
// no state, deterministic.
//
// The matrix is fixed. Admin and editor are permitted every file operation on
// every resource; they differ only in user administration, which is outside
// this engine. Viewer may upload, and may download or list only resources it
// owns; rename, delete, and list-all are denied to viewers unconditionally,
// own files included. That last rule is a product decision, not an oversight.
//
// Returns nil on allow and an error wrapping ErrForbidden on deny.
func Authorize(role Role, ownerID, callerID string, op Operation) error {
	switch role {
	case RoleAdmin, RoleEditor:
		return nil
	case RoleViewer:
		switch op {
		case OpUpload:
			return nil
		case OpDownload, OpListOwn:
			if ownerID == callerID {
				return nil
			}
			return fmt.Errorf("authorize: viewer may not access files owned by others: %w", ErrForbidden)
		case OpRename, OpDelete, OpListAll:
			return fmt.Errorf("authorize: viewers may not %s: %w", op, ErrForbidden)
		default:
			return fmt.Errorf("authorize: unknown operation %q: %w", op, ErrForbidden)
		}
	default:
		return fmt.Errorf("authorize: unknown role %q: %w", role, ErrForbidden)
	}
}
