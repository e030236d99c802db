// Package sim provides the core discrete-event simulation engine for
// FAIRSERVE: a multi-tenant LLM inference service used to study fairness
// scheduling policies on top of a continuous-batching, chunked-prefill
// execution engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - request.go, interaction.go: the data model (Request lifecycle,
//     multi-stage Interaction pipeline)
//   - event.go: the events the engine emits each step
//   - engine.go: the continuous-batching engine (decode-maximal scheduling,
//     chunked prefill, KV-token accounting)
//   - scheduler.go: the outer fairness layer (FCFS, VTC, WSC)
//   - oit.go: overload- and interaction-aware admission throttling
//   - orchestrator.go: the Orchestrator that ties arrivals, scheduler
//     choice, engine stepping, and interaction continuation together
//
// # Architecture
//
// Two layers compose through a narrow interface: the outer Scheduler never
// inspects engine internals, only the EngineSnapshot the engine publishes.
// The orchestrator is the only component that mutates both the wait queue
// and the interaction map; the engine exclusively owns a request between
// submission and completion.
//
// Workload generation lives in sim/workload: it is an external collaborator
// that produces pre-built Interactions, not part of the scheduling core.
package sim
