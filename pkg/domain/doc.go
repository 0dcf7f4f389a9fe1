/*
Package domain contains the core domain models of the tagbridge dispatcher.

It defines the vocabulary shared by the dispatcher, its transports and its SDK
adapters. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Command: The enumerated set of operations a caller may invoke.
  - Value: A self-describing typed value (string, boolean, integer, double).
  - Entry: A single data layer push.
  - Hit: A flat analytics payload handed to the SDK for delivery.
  - Response: The success or error answer delivered to a response sink.
  - Error: A typed failure carrying an ErrorKind.
*/
package domain
