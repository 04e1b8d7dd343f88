// Package audit emits finalized decision records to a signed audit logger.
//
// The engine's responsibility ends at producing a well-formed DecisionRecord;
// persistence and cryptographic signing belong to the Signer implementation
// behind the interface. Emission is asynchronous with a bounded buffer so a
// slow signer never blocks the decision path; overflow drops the record and
// counts it.
package audit
