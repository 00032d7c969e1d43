// Package config provides the configuration of SiteMapper: crawl limits,
// politeness settings, refresh policy, storage and logging, plus optional
// per-site overrides loaded from a YAML file.
package config
