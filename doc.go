// Package rulesage is an embeddable client for the rulebook retrieval engine.
// It searches a Valkey or Redis vector index of AD&D rulebook chunks,
// ranks the hits with entity-aware prioritization and gap filtering, and
// optionally answers questions from the ranked context.
//
//	c, err := rulesage.New(ctx,
//	    rulesage.WithValkey("localhost:6379", ""),
//	    rulesage.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", "text-embedding-3-small"),
//	)
//	if err != nil { ... }
//	defer c.Close()
//
//	res, _ := c.Retrieve(ctx, "black dragon vs red dragon", 5)
//	for _, ch := range res.Chunks {
//	    fmt.Println(ch.Title, ch.Distance)
//	}
//
//	ans, _ := c.Ask(ctx, "What does a black dragon breathe?", 5)
//	fmt.Println(ans.Text)
package rulesage
