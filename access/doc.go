// Package access implements the tier policy that gates which parts of the
// back-office a session may reach, plus flat permission-list evaluation.
//
// The four tiers form a total order (NoAccess < ProfileOnly < Limited < Full)
// and are always derived from server-owned account and validation statuses;
// nothing in this package ever invents a transition.
package access
