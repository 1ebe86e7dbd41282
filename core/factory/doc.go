// Package factory provides a small generic registry used to instantiate
// optional modules, such as metrics sinks, from configuration. Modules are
// defined by a type string and a map of raw settings:
//
//	metrics:
//	  sinks:
//	    - type: influx
//	      conf:
//	        url: http://localhost:8086
//
// Factories decode the settings with Decode and return the implementation.
package factory
