package utils

import (
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

type (
	// MemberWorkFunc runs for each work item (member) of a group.
	MemberWorkFunc func(memberNum, workNum int)
	// GroupWorkDoneFunc runs when a single group's work is done; helpful for merge stages.
	GroupWorkDoneFunc func()
	// GroupWorkFunc runs to determine what work members should do, if any.
	GroupWorkFunc func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc)
)

// GroupWorkParallel parallelizes the given size of work over at most ParallelFactor workers.
// The last group picks up the remainder.
func GroupWorkParallel(totalSize int, groupWork GroupWorkFunc) {
	if totalSize <= 0 {
		return
	}
	numGroups := ParallelFactor
	if numGroups > totalSize {
		numGroups = totalSize
	}
	groupSize := totalSize / numGroups
	extra := totalSize % numGroups

	var wait sync.WaitGroup
	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		groupNum := groupNum
		utils.PanicCapturingGo(func() {
			defer wait.Done()

			thisGroupSize := groupSize
			thisExtra := 0
			if groupNum == (numGroups - 1) {
				thisExtra = extra
				thisGroupSize += thisExtra
			}
			from := groupSize * groupNum
			to := (groupSize * (groupNum + 1)) + thisExtra
			memberWork, groupWorkDone := groupWork(groupNum, thisGroupSize, from, to)
			if memberWork != nil {
				memberNum := 0
				for workNum := from; workNum < to; workNum++ {
					memberWork(memberNum, workNum)
					memberNum++
				}
			}
			if groupWorkDone != nil {
				groupWorkDone()
			}
		})
	}
	wait.Wait()
}

// ParallelFor calls f for every index in [0, n). Work runs inline when n does not exceed
// threshold, otherwise it is split into contiguous ranges across workers. f must not depend
// on other iterations.
func ParallelFor(n, threshold int, f func(i int)) {
	if n <= threshold || ParallelFactor == 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}
	GroupWorkParallel(n, func(_, _, _, _ int) (MemberWorkFunc, GroupWorkDoneFunc) {
		return func(_, workNum int) { f(workNum) }, nil
	})
}

// ParallelForRange splits [0, n) into at most ParallelFactor contiguous ranges and calls f once
// per range. A single call f(0, n) is made when n does not exceed threshold.
func ParallelForRange(n, threshold int, f func(from, to int)) {
	if n <= 0 {
		return
	}
	if n <= threshold || ParallelFactor == 1 {
		f(0, n)
		return
	}
	GroupWorkParallel(n, func(_, _, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
		return nil, func() { f(from, to) }
	})
}

// ParallelForEachPixel loops through the image and calls f functions for each [x, y] position.
// The image is divided into N * N blocks, where N is ParallelFactor. For each non-empty block a
// parallel Goroutine is started.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	procs := ParallelFactor
	if procs > size.X {
		procs = size.X
	}
	if procs > size.Y {
		procs = size.Y
	}
	if procs <= 1 {
		for x := 0; x < size.X; x++ {
			for y := 0; y < size.Y; y++ {
				f(x, y)
			}
		}
		return
	}
	stepX, stepY := size.X/procs, size.Y/procs
	var waitGroup sync.WaitGroup
	waitGroup.Add(procs * procs)
	for i := 0; i < procs; i++ {
		startX := i * stepX
		endX := (i + 1) * stepX
		if i == procs-1 {
			endX = size.X
		}
		for j := 0; j < procs; j++ {
			startY := j * stepY
			endY := (j + 1) * stepY
			if j == procs-1 {
				endY = size.Y
			}
			sX, eX, sY, eY := startX, endX, startY, endY
			utils.PanicCapturingGo(func() {
				defer waitGroup.Done()
				for x := sX; x < eX; x++ {
					for y := sY; y < eY; y++ {
						f(x, y)
					}
				}
			})
		}
	}
	waitGroup.Wait()
}
