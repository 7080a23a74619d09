// rouse - wake a tagged EC2 instance and print its address.
package main

func main() {
	Execute()
}
