/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package broker provides a rate-limited asynchronous request broker.
//
// Many goroutines may submit jobs (destination URL + JSON payload) concurrently.
// Jobs are kept in an unbounded FIFO queue and are sent to the downstream service
// one at a time, strictly in submission order, by a single worker goroutine.
// Before each send the worker consults a sliding-window limiter, so that no more than
// the configured number of requests are sent within any trailing 60-second window.
//
// Every submission returns a Future which is resolved exactly once with either
// the downstream JSON response or an error (*TransportError, *UpstreamError, *InternalError).
// A failure of one job never affects processing of the following ones.
//
//	b, err := broker.New(cfg, logger)
//	if err != nil {
//		return err
//	}
//	go b.Start(fatalErr)
//	defer b.Stop(true)
//
//	result, err := b.Do(ctx, "http://llm:8001/recommend", payload)
package broker
