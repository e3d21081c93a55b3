package ikebana

import "github.com/ikebana-di/ikebana/internal/reflection"

// In marks a struct as a parameter object. A constructor (or Invoke
// target) taking a struct that embeds In receives each exported field
// resolved individually instead of the struct being resolved as one
// dependency:
//
//	type serverParams struct {
//	    ikebana.In
//
//	    Logger  Logger
//	    Metrics *Metrics `optional:"true"`
//	}
//
//	func NewServer(p serverParams) *Server {
//	    // p.Logger is always set; p.Metrics stays nil when no rule
//	    // provides *Metrics.
//	}
//
// Fields tagged optional:"true" are left at their zero value when no rule
// (and no override) provides their type. Resolution failures of provided
// types still propagate.
type In = reflection.In
