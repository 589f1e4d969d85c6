// Package config defines the closed configuration structure for the
// budget governance core.
//
// Every recognized option is an explicit field with a documented effect;
// there are no duck-typed option bags. Configuration is loaded from YAML,
// filled with defaults, validated at load time, and optionally overridden
// by GANYMEDE_* environment variables. A file watcher supports hot
// reloading pipeline limits and category defaults into a live registry.
package config
