/*
Package tagbridge is a command-dispatch bridge between a calling application and an analytics / tag-manager SDK.

A caller (a web view, a script, an agent) sends named commands with positional arguments and a callback identifier.
The bridge resolves each command against the one analytics session it owns and answers through a response sink,
immediately for accessors and later for a container open.

# Concept

The dispatcher is the only owner of the session. Commands are enumerated and routed to typed handlers; the SDK,
the response sink and snapshot persistence are ports, so the same core serves stdio, HTTP, websocket and MCP
transports.

# Key Features

  - Explicit lifecycle: Closed, Opening, Open. A second open cancels the first one.
  - Typed container values with strict get-time type checks.
  - Ordered data layer and fire-and-forget hit delivery.
  - Pluggable SDK and snapshot storage (in-process or Redis).

# Usage

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/tagbridge"
		"github.com/aretw0/tagbridge/pkg/domain"
	)

	func main() {
		bridge := tagbridge.New()
		defer bridge.Shutdown(context.Background())

		ctx := context.Background()
		resp, _ := bridge.Call(ctx, domain.CommandContainerOpen, "GTM-XXXX")
		fmt.Println(resp.Status)

		bridge.Call(ctx, domain.CommandSet, "plan", "pro")
		resp, _ = bridge.Call(ctx, domain.CommandGet, "plan")
		fmt.Println(resp.Value)
	}

For transports see pkg/runner (JSON lines over stdio), pkg/adapters/http and pkg/adapters/mcp.
*/
package tagbridge
