// Command quotesearch loads a quote collection and serves search over it.
package main

func main() {
	Execute()
}
