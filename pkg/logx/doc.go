// Package logx provides structured logging on top of zerolog with runtime
// reconfiguration and optional fanout to a file and a Telegram log chat.
//
// Components hold a Logger value; the Service behind it can be re-Applied
// when config changes without components noticing.
package logx
