package colloquy_test

import (
	"context"
	"fmt"
	"log"

	"github.com/colloquyhq/colloquy"
	"github.com/colloquyhq/colloquy/pkg/adapters/memory"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/dsl"
)

// Example demonstrates a complete embedded conversation: a flow built with
// the DSL, an in-process action, and scripted classifier output.
func Example() {
	flow, err := dsl.NewFlow("check_weather").
		Collect("ask_city", "Which city?", "city").
		Action("fetch", "fetch_weather").
		Emit("report", "It is {{condition}} in {{city}}.").
		Build()
	if err != nil {
		log.Fatal(err)
	}

	src, err := memory.NewSource(flow)
	if err != nil {
		log.Fatal(err)
	}
	eng, err := colloquy.New("", colloquy.WithFlowSource(src))
	if err != nil {
		log.Fatal(err)
	}
	eng.RegisterAction("fetch_weather", func(context.Context, map[string]any) (map[string]any, error) {
		return map[string]any{"condition": "sunny"}, nil
	})

	ctx := context.Background()
	state := eng.NewConversation("example")

	state, result, err := eng.ProcessTurn(ctx, state, domain.IntentChange{FlowName: "check_weather"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.Messages[0].Text)

	_, result, err = eng.ProcessTurn(ctx, state, domain.SlotValue{Slots: map[string]any{"city": "Lyon"}})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.Messages[len(result.Messages)-1].Text)

	// Output:
	// Which city?
	// It is sunny in Lyon.
}
