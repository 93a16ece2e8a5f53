// Package config loads cumulus-workerd's runtime configuration with
// spf13/viper: an optional YAML file overlaid by CUMULUS_-prefixed
// environment variables, unmarshaled into a typed Config.
package config
