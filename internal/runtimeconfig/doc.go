// Package runtimeconfig provides typed key/value settings that are read at
// call time rather than at process start.
//
// Values carry one of four types (str, int, bool, float) and are stored as
// strings. The token lifetime and the receipt formatting options live here
// so operators can change them without a restart. A Postgres-backed Store
// is provided by repositories/postgres; StaticProvider serves tests and
// single-process setups.
package runtimeconfig
