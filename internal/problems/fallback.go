package problems

import (
	"codeduel/internal/models"
)

func ref(s string) *string {
	return &s
}

// CuratedProblems returns the built-in library of hand-verified problems
// used when generation fails. Fingerprints are computed from the same
// fields as generated problems so the anti-duplicate index treats both
// sources uniformly.
func CuratedProblems() []models.Problem {
	problems := []models.Problem{
		{
			Title: "Two Sum",
			Description: "Given an array of integers nums and an integer target, return the indices of the two numbers " +
				"that add up to target. Each input has exactly one solution, and you may not use the same element twice. " +
				"Return the indices in ascending order.",
			Difficulty:   models.DifficultyEasy,
			ProblemType:  "array",
			FunctionName: "two_sum",
			StarterCode: models.StringMap{
				"python":     "def two_sum(nums, target):\n    pass\n",
				"javascript": "function twoSum(nums, target) {\n\n}\n",
			},
			TestCases: models.TestCaseList{
				{Input: []interface{}{[]interface{}{2, 7, 11, 15}, 9}, ExpectedOutput: []interface{}{0, 1}},
				{Input: []interface{}{[]interface{}{3, 2, 4}, 6}, ExpectedOutput: []interface{}{1, 2}},
				{Input: []interface{}{[]interface{}{3, 3}, 6}, ExpectedOutput: []interface{}{0, 1}, Hidden: true},
				{Input: []interface{}{[]interface{}{1, 2, 3, 4, 5}, 9}, ExpectedOutput: []interface{}{3, 4}, Hidden: true},
				{Input: []interface{}{[]interface{}{0, 4, 3, 0}, 0}, ExpectedOutput: []interface{}{0, 3}, Hidden: true},
			},
			Constraints: models.StringList{"2 <= len(nums) <= 10^4", "-10^9 <= nums[i] <= 10^9", "Exactly one valid answer exists"},
			Hints:       models.StringList{"A hash map lets you check for the complement in O(1)", "Store each value's index as you scan"},
			ReferenceSolution: ref("def two_sum(nums, target):\n" +
				"    seen = {}\n" +
				"    for i, n in enumerate(nums):\n" +
				"        if target - n in seen:\n" +
				"            return [seen[target - n], i]\n" +
				"        seen[n] = i\n" +
				"    return []\n"),
		},
		{
			Title: "Reverse String",
			Description: "Write a function that reverses a string. The input is a single string s and the result is the " +
				"same characters in reverse order. An empty string reverses to an empty string.",
			Difficulty:   models.DifficultyEasy,
			ProblemType:  "string",
			FunctionName: "reverse_string",
			StarterCode: models.StringMap{
				"python":     "def reverse_string(s):\n    pass\n",
				"javascript": "function reverseString(s) {\n\n}\n",
			},
			TestCases: models.TestCaseList{
				{Input: []interface{}{"hello"}, ExpectedOutput: "olleh"},
				{Input: []interface{}{"a"}, ExpectedOutput: "a"},
				{Input: []interface{}{""}, ExpectedOutput: "", Hidden: true},
				{Input: []interface{}{"racecar"}, ExpectedOutput: "racecar", Hidden: true},
				{Input: []interface{}{"Hello World"}, ExpectedOutput: "dlroW olleH", Hidden: true},
			},
			Constraints:       models.StringList{"0 <= len(s) <= 10^5", "s consists of printable ASCII characters"},
			Hints:             models.StringList{"Python slices can step backwards"},
			ReferenceSolution: ref("def reverse_string(s):\n    return s[::-1]\n"),
		},
		{
			Title: "Maximum Subarray",
			Description: "Given an integer array nums, find the contiguous subarray with the largest sum and return that " +
				"sum. The subarray must contain at least one number, so for an all-negative array the answer is the " +
				"largest single element.",
			Difficulty:   models.DifficultyMedium,
			ProblemType:  "array",
			FunctionName: "max_subarray",
			StarterCode: models.StringMap{
				"python":     "def max_subarray(nums):\n    pass\n",
				"javascript": "function maxSubarray(nums) {\n\n}\n",
			},
			TestCases: models.TestCaseList{
				{Input: []interface{}{[]interface{}{-2, 1, -3, 4, -1, 2, 1, -5, 4}}, ExpectedOutput: 6},
				{Input: []interface{}{[]interface{}{1}}, ExpectedOutput: 1},
				{Input: []interface{}{[]interface{}{5, 4, -1, 7, 8}}, ExpectedOutput: 23, Hidden: true},
				{Input: []interface{}{[]interface{}{-1}}, ExpectedOutput: -1, Hidden: true},
				{Input: []interface{}{[]interface{}{-2, -1}}, ExpectedOutput: -1, Hidden: true},
			},
			Constraints: models.StringList{"1 <= len(nums) <= 10^5", "-10^4 <= nums[i] <= 10^4"},
			Hints:       models.StringList{"Kadane's algorithm runs in O(n)", "Track the best sum ending at the current index"},
			ReferenceSolution: ref("def max_subarray(nums):\n" +
				"    best = cur = nums[0]\n" +
				"    for n in nums[1:]:\n" +
				"        cur = max(n, cur + n)\n" +
				"        best = max(best, cur)\n" +
				"    return best\n"),
		},
		{
			Title: "First Unique Character",
			Description: "Given a string s, find the first non-repeating character and return its index. If every " +
				"character repeats, return -1. Comparison is case-sensitive.",
			Difficulty:   models.DifficultyMedium,
			ProblemType:  "string",
			FunctionName: "first_unique_char",
			StarterCode: models.StringMap{
				"python":     "def first_unique_char(s):\n    pass\n",
				"javascript": "function firstUniqueChar(s) {\n\n}\n",
			},
			TestCases: models.TestCaseList{
				{Input: []interface{}{"leetcode"}, ExpectedOutput: 0},
				{Input: []interface{}{"loveleetcode"}, ExpectedOutput: 2},
				{Input: []interface{}{"aabb"}, ExpectedOutput: -1, Hidden: true},
				{Input: []interface{}{""}, ExpectedOutput: -1, Hidden: true},
				{Input: []interface{}{"z"}, ExpectedOutput: 0, Hidden: true},
			},
			Constraints: models.StringList{"0 <= len(s) <= 10^5", "s consists of lowercase and uppercase letters"},
			Hints:       models.StringList{"Count occurrences first, then scan again for the first count of one"},
			ReferenceSolution: ref("def first_unique_char(s):\n" +
				"    counts = {}\n" +
				"    for ch in s:\n" +
				"        counts[ch] = counts.get(ch, 0) + 1\n" +
				"    for i, ch in enumerate(s):\n" +
				"        if counts[ch] == 1:\n" +
				"            return i\n" +
				"    return -1\n"),
		},
		{
			Title: "Trapping Rain Water",
			Description: "Given n non-negative integers representing an elevation map where the width of each bar is 1, " +
				"compute how much water it can trap after raining. Water collects between bars up to the shorter of the " +
				"tallest bars on either side.",
			Difficulty:   models.DifficultyHard,
			ProblemType:  "array",
			FunctionName: "trap_rain_water",
			StarterCode: models.StringMap{
				"python":     "def trap_rain_water(height):\n    pass\n",
				"javascript": "function trapRainWater(height) {\n\n}\n",
			},
			TestCases: models.TestCaseList{
				{Input: []interface{}{[]interface{}{0, 1, 0, 2, 1, 0, 1, 3, 2, 1, 2, 1}}, ExpectedOutput: 6},
				{Input: []interface{}{[]interface{}{4, 2, 0, 3, 2, 5}}, ExpectedOutput: 9},
				{Input: []interface{}{[]interface{}{}}, ExpectedOutput: 0, Hidden: true},
				{Input: []interface{}{[]interface{}{1, 2, 3, 4}}, ExpectedOutput: 0, Hidden: true},
				{Input: []interface{}{[]interface{}{5, 4, 1, 2}}, ExpectedOutput: 1, Hidden: true},
			},
			Constraints: models.StringList{"0 <= len(height) <= 2 * 10^4", "0 <= height[i] <= 10^5"},
			Hints:       models.StringList{"Water above a bar is bounded by the smaller of the max heights to its left and right", "Two pointers avoid precomputing both max arrays"},
			ReferenceSolution: ref("def trap_rain_water(height):\n" +
				"    left, right = 0, len(height) - 1\n" +
				"    left_max = right_max = 0\n" +
				"    total = 0\n" +
				"    while left < right:\n" +
				"        if height[left] < height[right]:\n" +
				"            if height[left] >= left_max:\n" +
				"                left_max = height[left]\n" +
				"            else:\n" +
				"                total += left_max - height[left]\n" +
				"            left += 1\n" +
				"        else:\n" +
				"            if height[right] >= right_max:\n" +
				"                right_max = height[right]\n" +
				"            else:\n" +
				"                total += right_max - height[right]\n" +
				"            right -= 1\n" +
				"    return total\n"),
		},
		{
			Title: "Edit Distance",
			Description: "Given two strings word1 and word2, return the minimum number of operations required to convert " +
				"word1 into word2. The allowed operations are inserting a character, deleting a character, and replacing " +
				"a character.",
			Difficulty:   models.DifficultyHard,
			ProblemType:  "dynamic_programming",
			FunctionName: "edit_distance",
			StarterCode: models.StringMap{
				"python":     "def edit_distance(word1, word2):\n    pass\n",
				"javascript": "function editDistance(word1, word2) {\n\n}\n",
			},
			TestCases: models.TestCaseList{
				{Input: []interface{}{"horse", "ros"}, ExpectedOutput: 3},
				{Input: []interface{}{"intention", "execution"}, ExpectedOutput: 5},
				{Input: []interface{}{"", ""}, ExpectedOutput: 0, Hidden: true},
				{Input: []interface{}{"abc", ""}, ExpectedOutput: 3, Hidden: true},
				{Input: []interface{}{"same", "same"}, ExpectedOutput: 0, Hidden: true},
			},
			Constraints: models.StringList{"0 <= len(word1), len(word2) <= 500", "Both strings consist of lowercase letters"},
			Hints:       models.StringList{"dp[i][j] is the distance between the first i chars of word1 and first j of word2", "Matching characters cost nothing"},
			ReferenceSolution: ref("def edit_distance(word1, word2):\n" +
				"    m, n = len(word1), len(word2)\n" +
				"    dp = [[0] * (n + 1) for _ in range(m + 1)]\n" +
				"    for i in range(m + 1):\n" +
				"        dp[i][0] = i\n" +
				"    for j in range(n + 1):\n" +
				"        dp[0][j] = j\n" +
				"    for i in range(1, m + 1):\n" +
				"        for j in range(1, n + 1):\n" +
				"            if word1[i - 1] == word2[j - 1]:\n" +
				"                dp[i][j] = dp[i - 1][j - 1]\n" +
				"            else:\n" +
				"                dp[i][j] = 1 + min(dp[i - 1][j - 1], dp[i - 1][j], dp[i][j - 1])\n" +
				"    return dp[m][n]\n"),
		},
		{
			Title: "Median of Two Sorted Arrays",
			Description: "Given two sorted arrays nums1 and nums2, return the median of the combined sorted order as a " +
				"float. For an even total count the median is the average of the two middle values.",
			Difficulty:   models.DifficultyExpert,
			ProblemType:  "array",
			FunctionName: "find_median_sorted_arrays",
			StarterCode: models.StringMap{
				"python":     "def find_median_sorted_arrays(nums1, nums2):\n    pass\n",
				"javascript": "function findMedianSortedArrays(nums1, nums2) {\n\n}\n",
			},
			TestCases: models.TestCaseList{
				{Input: []interface{}{[]interface{}{1, 3}, []interface{}{2}}, ExpectedOutput: 2.0},
				{Input: []interface{}{[]interface{}{1, 2}, []interface{}{3, 4}}, ExpectedOutput: 2.5},
				{Input: []interface{}{[]interface{}{}, []interface{}{1}}, ExpectedOutput: 1.0, Hidden: true},
				{Input: []interface{}{[]interface{}{0, 0}, []interface{}{0, 0}}, ExpectedOutput: 0.0, Hidden: true},
				{Input: []interface{}{[]interface{}{1, 2, 3, 4, 5}, []interface{}{6, 7, 8, 9, 10}}, ExpectedOutput: 5.5, Hidden: true},
			},
			Constraints: models.StringList{"0 <= len(nums1), len(nums2) <= 1000", "1 <= len(nums1) + len(nums2)", "Arrays are sorted ascending"},
			Hints:       models.StringList{"A full merge is O(m+n) and acceptable here", "Watch the parity of the combined length"},
			ReferenceSolution: ref("def find_median_sorted_arrays(nums1, nums2):\n" +
				"    merged = sorted(nums1 + nums2)\n" +
				"    n = len(merged)\n" +
				"    mid = n // 2\n" +
				"    if n % 2 == 1:\n" +
				"        return float(merged[mid])\n" +
				"    return (merged[mid - 1] + merged[mid]) / 2.0\n"),
		},
		{
			Title: "Longest Valid Parentheses",
			Description: "Given a string s containing only the characters '(' and ')', return the length of the longest " +
				"substring that forms a valid, balanced sequence of parentheses.",
			Difficulty:   models.DifficultyExpert,
			ProblemType:  "string",
			FunctionName: "longest_valid_parentheses",
			StarterCode: models.StringMap{
				"python":     "def longest_valid_parentheses(s):\n    pass\n",
				"javascript": "function longestValidParentheses(s) {\n\n}\n",
			},
			TestCases: models.TestCaseList{
				{Input: []interface{}{"(()"}, ExpectedOutput: 2},
				{Input: []interface{}{")()())"}, ExpectedOutput: 4},
				{Input: []interface{}{""}, ExpectedOutput: 0, Hidden: true},
				{Input: []interface{}{"()(())"}, ExpectedOutput: 6, Hidden: true},
				{Input: []interface{}{"())((())"}, ExpectedOutput: 4, Hidden: true},
			},
			Constraints: models.StringList{"0 <= len(s) <= 3 * 10^4", "s[i] is '(' or ')'"},
			Hints:       models.StringList{"Keep indices of unmatched positions on a stack", "Seed the stack with -1 as a base marker"},
			ReferenceSolution: ref("def longest_valid_parentheses(s):\n" +
				"    stack = [-1]\n" +
				"    best = 0\n" +
				"    for i, ch in enumerate(s):\n" +
				"        if ch == '(':\n" +
				"            stack.append(i)\n" +
				"        else:\n" +
				"            stack.pop()\n" +
				"            if not stack:\n" +
				"                stack.append(i)\n" +
				"            else:\n" +
				"                best = max(best, i - stack[-1])\n" +
				"    return best\n"),
		},
	}

	for i := range problems {
		p := &problems[i]
		p.Fingerprint = Fingerprint(p.Title, p.FunctionName, ParamSignature(p.StarterCode, p.FunctionName), p.Description)
		p.Source = models.ProblemSourceCurated
	}

	return problems
}
