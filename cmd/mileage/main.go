// Command mileage computes per-region mileage of GeoJSON lines offline.
package main

func main() {
	Run()
}
