// Package bootstrap contains one-time activation steps.
//
// ApproveFirstDevice puts the operator's device on their own allow-list without a code,
// so turning the device limit on cannot lock the operator out.
package bootstrap
