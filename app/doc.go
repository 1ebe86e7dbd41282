// Package app wires the statistics store to the battery simulator. A run reads
// the seed values at the start of the period, replays the hourly injection and
// consumption curves through the simulator and writes the stock, discharge and
// grid draw series back, then feeds the local run log, daily ledger, metrics
// sinks and MQTT state topic.
package app
