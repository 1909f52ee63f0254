// Package publishing implements the socialPost stage: it checks the text
// against the platform limit and hands the post to the relay named by the
// item's posting method.
package publishing
