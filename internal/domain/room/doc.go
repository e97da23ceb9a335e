/*
Package room is the session registry: the in-memory map from room id to the
room's shared code buffer and the connections subscribed to it.

# Semantics

  - Create resets the buffer to "" (any previous text under the same id is lost)
    and subscribes the creator
  - Join subscribes to an existing room and hands back its buffer; unknown ids
    fail with ErrRoomNotFound and create nothing
  - ApplyEdit overwrites the buffer and returns every member except the sender
  - RecordCompileOutput overwrites the buffer with a run's output and returns
    every member, unless the buffer was written after the run was dispatched

Last writer wins. Rooms are never deleted: a disconnect only removes the
connection's memberships, so a room outlives its last member until restart.
*/
package room
