// Package vikunja provides a client for the Vikunja task management REST API.
//
// This package wraps the Vikunja API (api/v1) and provides functionality for:
//   - Listing tasks across projects or within a single project
//   - Server-side filtering via Vikunja filter expressions
//   - Managing tasks (get, create, update, delete, complete)
//   - Listing projects
//
// # Authentication
//
// The client authenticates with a static API token created in the Vikunja UI
// (Settings > API Tokens) and sends it as a bearer token on every request.
//
// # Server-side filter rejection
//
// Vikunja instances differ in which filter expressions they accept. When a
// listing request carries a filter and the server answers with a client error,
// ListTasks returns an error wrapping ErrFilterRejected. The filtering
// orchestrator uses this to fall back to local evaluation instead of failing
// the request.
//
// # Example Usage
//
//	client, err := vikunja.NewClient("https://try.vikunja.io", token)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tasks, err := client.ListTasks(ctx, vikunja.ListTasksOptions{
//	    Filter:  "done = false && priority >= 3",
//	    PerPage: 50,
//	})
package vikunja
