// Package eosapi and its sub-packages implement a REST gateway to an EOS chain: a queryable mirror of the chain's
// blocks, transactions, actions and accounts, user management and a proxy to the node's chain API.
/*
eosapi provides you with two services:

1) an api service (package api) that implements a RESTful API to list and get the mirrored chain collections, manage
 the gateway users and their tokens, request faucet accounts and push transactions to the EOS node.

2) a mirror service (package mirror) that follows the blocks of one or more chains and writes them to the database
 read by the api.

Architecture

Both services share the main database (package lib/store), which only MongoDB can hold. Faucet requests can be logged
to a separate database, MongoDB or PostgreSQL. The services publish to a message broker (package lib/msg): the api
sends mail notifications (password resets, faucet requests) and the mirror sends an event for every block written.
The broker layer is product agnostic and is configured via a JSON config file at service startup.

Collection queries go through a small pipeline: the query string is parsed against the collection descriptor (package
lib/query), compiled into a plan (package lib/plan), executed by the store and the documents turned into records
(package lib/entity). Package lib/collection ties these steps together for the api.

The services can be monitored via a Prometheus API by setting the flag "-m" at startup, and traced with OpenTelemetry
when an OTLP endpoint is configured.

API

The api service can be started running cmd/api/main.go. Collection and chain routes require a bearer token, obtained
by registering or logging in, or an api key. Replies of the EOS node are passed through unchanged.

Mirror

The mirror service can be started running cmd/mirror/main.go. Each chain keeps a cursor with the last block written and
the ids of the latest blocks, so the mirror resumes where it stopped and stops when the chain forks below it.
*/
package eosapi
