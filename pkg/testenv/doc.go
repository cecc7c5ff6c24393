// Package testenv provisions ephemeral sets of containerized services as test
// fixtures and tears them down afterwards.
//
// An Environment owns an ordered list of Dependencies under one name. Every
// resource a dependency creates is named "{environment}-{local}" and labeled
// with the environment so concurrent suites sharing a daemon never collide.
// Environments are assembled with a Builder:
//
//	engine, err := whail.New(ctx, whail.EngineOptions{})
//	if err != nil {
//		t.Fatal(err)
//	}
//	env, err := testenv.NewBuilder(engine).
//		SetName("it").
//		SetVariables(testenv.Var("TZ", "UTC")).
//		AddContainer("web", "nginx", testenv.WithPorts("80/tcp")).
//		AddContainer("cache", "redis", testenv.WithTag("7")).
//		Build()
//	if err != nil {
//		t.Fatal(err)
//	}
//	if err := env.Start(ctx); err != nil {
//		t.Fatal(err)
//	}
//	t.Cleanup(func() { _ = env.Stop(context.Background()) })
//
// Start brings dependencies up in declaration order and waits for each to be
// ready before the next begins. A failure rolls back whatever was started.
// Stop tears everything down in reverse order and reports every dependency
// that could not be cleaned up.
package testenv
