// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling and batched reads. EmployeeRepo implements
// domain.EmployeeReader; Mutator runs write transactions and publishes their
// mutations to the realtime commit bus after a successful commit.
package database
