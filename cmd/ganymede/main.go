// Ganymede is a resource governance core for multi-agent LLM pipelines.
//
// It tracks token and cost consumption per agent, enforces hard and soft
// budget limits, supports atomic budget transfers between agents, persists
// budget state across crashes, and generates aggregated usage reports with
// optimization suggestions.
//
// Usage:
//
//	# Validate a configuration file
//	ganymede validate --config /path/to/config.yaml
//
//	# List persisted budget sessions
//	ganymede sessions --config /path/to/config.yaml
//
//	# Render a usage report from persisted state
//	ganymede report --config /path/to/config.yaml
//
//	# Show version information
//	ganymede version
package main

func main() {
	Execute()
}
