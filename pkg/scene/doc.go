// Package scene defines the scene description for ember.
// A scene is an immutable DAG of volumes, transforms and groups plus the
// camera that looks at them. Each evaluation of a scene script produces a
// new scene; nothing mutates it afterwards.
package scene
