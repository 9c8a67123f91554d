// Package config provides the runtime configuration of znacky, the optional
// .znacky YAML file that overrides it, and the settings file that remembers
// the default download directory between runs.
package config
