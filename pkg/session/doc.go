/*
Package session implements the live binding between the dispatcher and an
opened analytics container.

A Session holds the SDK handle, the typed key-value configuration, the ordered
data layer, and the session-wide tracking ID and log level. It is owned by a
single dispatcher and is not safe for concurrent use on its own.
*/
package session
