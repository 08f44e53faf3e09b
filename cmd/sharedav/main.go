// sharedav is the operator command line tool: it manages the share record
// store and converts shares to and from the FastLink interchange format.
package main

func main() {
	Execute()
}
