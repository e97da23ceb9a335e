// Package ws implements the room event channel over WebSockets.
//
// Every frame is a JSON envelope {"event": name, "data": payload}.
//
// Events (Client → Server):
//   - createRoom: data is the room id; resets the room's buffer and joins it
//   - joinRoom: data is the room id; answered with codeUpdate or error
//   - codeChange: data is {roomId, code}; relayed to the other members
//   - compile: data is {roomId, code}; runs the code in the sandbox
//
// Events (Server → Client):
//   - codeUpdate: the room's buffer text
//   - compileResult: captured output, or {error} when the run failed
//   - error: a problem with the sender's own request
//
// A single Hub goroutine processes events in arrival order and owns all
// room state changes and sends. Compiles run on the sandbox pool and come
// back to the hub when finished, so one slow script never stalls other
// rooms. Compile results go to every member of the room; errors about a
// request go to its sender only.
//
// Example Usage:
//
//	hub := ws.NewHub(registry, pool, logger, ws.HubConfig{})
//	go hub.Run(ctx)
//	handler := ws.NewHandler(hub, ws.HandlerConfig{AllowedOrigin: origin}, logger)
//	router.GET("/ws", handler.HandleConnection)
package ws
