// Package stage defines the contract shared by every dataset pipeline step
// and the runtime context passed into them.
package stage
