/*
Package dsl provides a fluent Go builder for constructing Colloquy flows
programmatically instead of loading them from YAML files. This is useful for
dynamic flow generation, unit tests, and hosts that want IDE type-checking
over their dialogue definitions.

Example usage:

	package main

	import (
		"github.com/colloquyhq/colloquy"
		"github.com/colloquyhq/colloquy/pkg/dsl"
	)

	func main() {
		flow, err := dsl.NewFlow("book_flight").
			Describe("Book a flight for the user.").
			Collect("ask_destination", "Where would you like to fly?", "destination").
			Collect("ask_date", "What day works for you?", "date").
			Confirm("confirm_booking", "Book a flight to {{destination}} on {{date}}?").
			Action("do_booking", "book_flight").
			Emit("announce", "Your flight to {{destination}} is booked.").
			Build()
		if err != nil {
			// ...
		}

		// The resulting flow feeds a memory source for colloquy.New via
		// colloquy.WithFlowSource.
		_ = flow
	}

Build runs the same validation and loop expansion as the YAML compiler, so
a flow that builds here behaves identically to one loaded from disk.
*/
package dsl
