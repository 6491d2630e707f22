// Package filedock implements the metadata and access-control engine of a
// multi-tenant file-sharing backend.
//
// Files live in an external object store; filedock tracks one FileRecord per
// confirmed upload in a metadata index queryable by owner and by folder, with
// soft deletion and cursor pagination.
//
// # Key Components
//
//   - Authorize: pure role-based policy (admin, editor, viewer)
//   - FileRepo: interface for metadata persistence (PostgreSQL, SQLite)
//   - ObjectStore: interface for time-boxed read/write handles (MinIO, local)
//   - Coordinator: two-phase upload protocol (reserve, confirm)
//   - Service: authorized listings, downloads, renames, soft deletes
//
// # Upload Protocol
//
// Uploads are two-phase. Reserve issues a fresh file ID, a storage key
// namespaced under the owner, and a short-lived write handle; no metadata is
// written. The client transfers bytes directly to the object store, then calls
// Confirm, which consumes the reservation and creates the FileRecord. A
// reservation that expires unconfirmed never produces a record.
//
//	coord := filedock.NewCoordinator(repo, store, reservations, filedock.CoordinatorConfig{})
//	res, err := coord.Reserve(ctx, caller, filedock.ReserveRequest{
//	    FileName: "a.txt", FileSize: 1024, FileType: "text/plain",
//	})
//	// client PUTs bytes to res.UploadURL, then:
//	record, err := coord.Confirm(ctx, caller, filedock.ConfirmRequest{
//	    FileID: res.FileID, StorageKey: res.StorageKey, ...
//	})
//
// See the http package for the REST surface and the database packages for
// metadata backends.
package filedock
