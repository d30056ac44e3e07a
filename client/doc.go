// Package client dispatches stream requests to provider adapters.
//
// Every model names the wire API it is served through. The Client resolves
// that API to a built-in adapter first and to a custom registration second:
//
//	c := client.New(client.WithAPIKeys(map[ai.Provider]string{
//	    ai.ProviderAnthropic: os.Getenv("ANTHROPIC_API_KEY"),
//	}))
//
//	events, err := c.Stream(ctx, model, ai.Context{
//	    Messages: []ai.Message{ai.NewUserMessage("Hello!")},
//	})
//	if err != nil {
//	    // *ai.UnsupportedApiError: no adapter serves model.Api
//	}
//	for ev := range events {
//	    if ev.Type == ai.EventTextDelta {
//	        fmt.Print(ev.Delta)
//	    }
//	}
//
// # Custom APIs
//
// Extensions add providers through the registry package. Built-in API names
// are reserved and always resolve to the built-in adapter:
//
//	reg := registry.New()
//	reg.Register("acme-chat", acme.StreamSimple, registry.WithSource("acme"))
//	c := client.New(client.WithRegistry(reg))
//
// # Credentials
//
// A key passed with ai.WithAPIKey wins, then the WithAPIKeys map, then the
// provider's environment variable (see EnvAPIKey).
//
// # Observability
//
// Each stream runs inside a "loom.stream" client span that ends on the
// terminal event. WithEvents receives request lifecycle events without
// blocking the stream.
package client
