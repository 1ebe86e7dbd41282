// Package util provides helpers shared across package and integration tests.
//
// HomeAssistantStub serves the long-term statistics and recorder import
// endpoints from memory so a full run can be exercised without a real Home
// Assistant instance.
//
// StartInfluxDB launches a disposable InfluxDB 2 server in a Docker
// container. It returns the server URL and a cleanup function.
package util
