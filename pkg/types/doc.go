// Package types defines the fixture lifecycle interfaces, the dataset model,
// the closed set of database operations, the collaborator interfaces consumed
// by the lifecycle manager, and the standard error kinds.
package types
