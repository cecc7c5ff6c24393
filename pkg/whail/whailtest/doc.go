// Package whailtest provides test doubles for code built on the whail engine,
// in the manner of net/http/httptest.
//
// FakeAPIClient is a function-field fake of whail.APIClient. Unset methods
// panic so unexpected calls fail loudly:
//
//	fake := whailtest.NewFakeAPIClient()
//	engine := whail.NewFromExisting(fake, whailtest.TestEngineOptions())
//	fake.ContainerStopFn = func(ctx context.Context, id string, opts client.ContainerStopOptions) (client.ContainerStopResult, error) {
//	    return client.ContainerStopResult{}, nil
//	}
//	whailtest.AssertCalled(t, fake, "ContainerStop")
//
// FakeDaemon wires every FakeAPIClient method to an in-memory daemon holding
// images, containers and networks, for lifecycle tests that span many calls:
//
//	d := whailtest.NewFakeDaemon()
//	d.ExitOnStart("it-cache", 1)
//	engine := d.Engine()
package whailtest
