// Package anomaly flags unsafe or inconsistent calculation outcomes.
//
// Detection is a pure function over one component's completed results:
// rules are applied independently in declaration order, no rule
// suppresses another, and identical inputs always produce the
// identical anomaly list. Deduplication across repeated runs is the
// caller's concern. Review state advances only through human review;
// the detector always emits pending.
package anomaly
