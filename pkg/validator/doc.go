/*
Package validator decides whether an inbound request only submits what a previously
rendered State allowed.

Every request yields exactly one Result: Valid (with confidential indices rewritten to
their real values), NotRequired (a start action), or Invalid with a domain.Reason and,
where it applies, the offending parameter. Adversarial input never produces a Go error.
*/
package validator
