package clock

import "time"

// Clock abstracts time.Now so services can be tested against a fixed instant.
type Clock interface {
	Now() time.Time
}

type system struct{}

func System() Clock { return system{} }

func (system) Now() time.Time { return time.Now().UTC() }

type fixed struct{ t time.Time }

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock { return fixed{t: t.UTC()} }

func (f fixed) Now() time.Time { return f.t }
