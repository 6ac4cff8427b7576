/*
Package e2e exercises the whole daemon stack end to end.

Each spec boots the same pieces the serve command wires together, with
an in-memory store and real shell execution, and talks to the HTTP API
exclusively through pkg/client:

	┌────────┐      ┌──────────┐      ┌──────────┐      ┌───────────┐
	│ client │─────▶│ handlers │─────▶│  Runner  │─────▶│ Scheduler │
	└────────┘      └──────────┘      └────┬─────┘      └───────────┘
	                                       │
	                                       ▼
	                                 ┌───────────┐
	                                 │   Store   │
	                                 └───────────┘

The specs cover the happy path (submit a fan-out pipeline, poll until
it completes, verify the recorded tasks), the failure path (a task
whose command exits non-zero), and the client-visible error mapping
(unknown run, malformed pipeline).

Everything runs in process, so the suite needs nothing beyond `sh` on
the path:

	go test ./test/e2e/...
*/
package e2e
