// Package models contains the stochastic systems the simulator ships with.
package models
