// Package infra contains technical adapters: input readers, artifact
// publishers, the MQTT client and metrics exporters. These packages should
// depend only on the interfaces defined in the core packages.
package infra
