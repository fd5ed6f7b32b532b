// Package factory instantiates pluggable modules, such as metrics sinks, from
// a type name and a map of raw settings:
//
//	sinks:
//	  - type: influx
//	    conf: {url: http://localhost:8086, org: ops, bucket: drones}
//
// Packages providing implementations register a Factory per type name from
// an init function; the factory decodes its settings with Decode.
package factory
