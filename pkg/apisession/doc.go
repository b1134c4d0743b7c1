// Package apisession performs API methods and delivers their results.
//
// A Session resolves each method's target through a coreapi.HostProvider,
// merges default, method and call-site headers, encodes the parameters and
// hands the request to the transport. Perform never fails directly: a request
// that cannot be built yields a Task that is born failed.
//
// Basic usage:
//
//	session := apisession.New(coreapi.NewStaticHostProvider(map[string]string{
//		"payments": "//payment.example.com",
//	}))
//	defer session.Close()
//
//	task := apisession.Perform[Balance](ctx, session, &coreapi.Descriptor{
//		HostKey: "payments",
//		Path:    "/api/v1/balance",
//	})
//
//	balance, err := task.Await(ctx)
//
// Handlers may be registered before or after completion; each runs exactly
// once, in registration order, on the chosen Executor:
//
//	task.ResponseDecodedOn(apisession.Inline, func(balance *Balance, err error) {
//		if coreapi.IsRetryable(err) {
//			retry, _ := coreapi.RetryAfter(err)
//			...
//		}
//	})
package apisession
