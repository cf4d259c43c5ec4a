// Package config loads the scheduler configuration, keeps the framework
// identity and builds new task records from the target daemon configuration.
//
// Configuration files are YAML or TOML, picked by extension, decoded over
// Default() and checked by Validate, which reports every problem at once.
// Manager implements registry.TaskFactory and IdentityManager implements
// registry.IdentitySource.
package config
