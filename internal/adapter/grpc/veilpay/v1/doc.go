// Package veilpayv1 holds generated protobuf bindings.
package veilpayv1
